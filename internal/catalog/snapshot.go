package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rueckstiess/mconfcheck/internal/mcerr"
)

// ClusterSnapshot is a read-only point-in-time view of the cluster topology
// surrounding a catalog. It is informational only — the core never consults
// it, and the CLI report does not include it.
type ClusterSnapshot struct {
	Shards          []ShardInfo
	BalancerEnabled bool
	Databases       []string
	AuthenticatedAs string
	Roles           []string
}

// ShardInfo is one registered shard.
type ShardInfo struct {
	ID    string
	Host  string
	State int
}

// ClusterSnapshot runs four read-only admin commands (listShards,
// balancerStatus, listDatabases, connectionStatus) to surface the cluster
// topology and the access level the catalog connection was authenticated
// with. It never creates users or issues write probes.
func (a *Accessor) ClusterSnapshot(ctx context.Context) (*ClusterSnapshot, error) {
	snap := &ClusterSnapshot{}
	admin := a.client.Database("admin")

	var shardsResult bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "listShards", Value: 1}}).Decode(&shardsResult); err != nil {
		return nil, fmt.Errorf("catalog %s: listShards: %v: %w", a.Label, err, mcerr.ErrCatalogUnreachable)
	}
	if shards, ok := shardsResult["shards"].(bson.A); ok {
		for _, s := range shards {
			if m, ok := s.(bson.M); ok {
				snap.Shards = append(snap.Shards, ShardInfo{
					ID:    stringField(m, "_id"),
					Host:  stringField(m, "host"),
					State: intField(m, "state"),
				})
			}
		}
	}

	var balResult bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "balancerStatus", Value: 1}}).Decode(&balResult); err == nil {
		if mode, ok := balResult["mode"].(string); ok {
			snap.BalancerEnabled = mode == "full"
		}
	}

	var dbResult bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "listDatabases", Value: 1}}).Decode(&dbResult); err == nil {
		if dbs, ok := dbResult["databases"].(bson.A); ok {
			for _, d := range dbs {
				if m, ok := d.(bson.M); ok {
					snap.Databases = append(snap.Databases, stringField(m, "name"))
				}
			}
		}
	}

	var connResult bson.M
	if err := admin.RunCommand(ctx, bson.D{{Key: "connectionStatus", Value: 1}}).Decode(&connResult); err == nil {
		if authInfo, ok := connResult["authInfo"].(bson.M); ok {
			if users, ok := authInfo["authenticatedUsers"].(bson.A); ok && len(users) > 0 {
				if u, ok := users[0].(bson.M); ok {
					snap.AuthenticatedAs = stringField(u, "user")
				}
			}
			if roles, ok := authInfo["authenticatedUserRoles"].(bson.A); ok {
				for _, r := range roles {
					if m, ok := r.(bson.M); ok {
						snap.Roles = append(snap.Roles, stringField(m, "role"))
					}
				}
			}
		}
	}

	return snap, nil
}

func stringField(m bson.M, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m bson.M, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
