package routes

import (
	"net/http"

	"taskboard/app/controllers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, taskController *controllers.TaskController, subTaskController *controllers.SubTaskController) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/tasks", taskController.GetTasks).Methods(http.MethodGet)
	router.HandleFunc("/tasks", taskController.CreateTask).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}", taskController.GetTaskByID).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{taskID}", taskController.UpdateTask).Methods(http.MethodPut)
	router.HandleFunc("/tasks/{taskID}", taskController.DeleteTask).Methods(http.MethodDelete)

	router.HandleFunc("/tasks/{taskID}/subtasks", subTaskController.ListSubTasks).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{taskID}/subtasks", subTaskController.CreateSubTask).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}/subtasks/tree", subTaskController.Tree).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{taskID}/subtasks/stats", subTaskController.Stats).Methods(http.MethodGet)
	router.HandleFunc("/boards/{boardID}/subtasks/tree", subTaskController.Tree).Methods(http.MethodGet)
	router.HandleFunc("/boards/{boardID}/subtasks/stats", subTaskController.Stats).Methods(http.MethodGet)

	router.HandleFunc("/subtasks/{subTaskID}", subTaskController.GetSubTask).Methods(http.MethodGet)
	router.HandleFunc("/subtasks/{subTaskID}", subTaskController.UpdateSubTask).Methods(http.MethodPut)
	router.HandleFunc("/subtasks/{subTaskID}", subTaskController.DeleteSubTask).Methods(http.MethodDelete)
	router.HandleFunc("/subtasks/{subTaskID}/move", subTaskController.MoveSubTask).Methods(http.MethodPost)
}
