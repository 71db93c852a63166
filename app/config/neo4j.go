package config

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

// InitNeo4j opens a driver for cfg. It does not contact the server; call
// VerifyConnectivity for that.
func InitNeo4j(cfg Neo4jConfig) (neo4j.DriverWithContext, error) {
	return neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			if cfg.AcquireTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.AcquireTimeout
			}
		})
}
