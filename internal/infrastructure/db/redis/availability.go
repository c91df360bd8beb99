package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	poolKey     = "agents:pool"
	leasePrefix = "agent:avail:"
)

// Availability modes. In heartbeat mode an agent's lease carries a TTL and
// lapses when the agent stops reporting; in manual mode the lease persists
// until the agent (or an admin) toggles it off.
const (
	ModeHeartbeat = "heartbeat"
	ModeManual    = "manual"
)

// AgentPool tracks delivery-agent availability in Redis. Membership is a
// set plus a per-agent lease key; an agent counts as available only while
// its lease key exists.
type AgentPool struct {
	client *redis.Client
	mode   string
	ttl    time.Duration
}

// NewAgentPool creates an AgentPool wrapping the given Redis client.
func NewAgentPool(client *redis.Client, mode string, ttl time.Duration) *AgentPool {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &AgentPool{client: client, mode: mode, ttl: ttl}
}

// Heartbeat refreshes the agent's availability lease. In manual mode a
// heartbeat is equivalent to marking the agent available.
func (p *AgentPool) Heartbeat(ctx context.Context, agentID string) error {
	return p.MarkAvailable(ctx, agentID)
}

// MarkAvailable adds the agent to the pool and (re)writes its lease.
func (p *AgentPool) MarkAvailable(ctx context.Context, agentID string) error {
	if err := p.client.SAdd(ctx, poolKey, agentID).Err(); err != nil {
		return fmt.Errorf("agent pool add: %w", err)
	}

	ttl := p.ttl
	if p.mode == ModeManual {
		ttl = 0 // no expiry; explicit toggle only
	}
	if err := p.client.Set(ctx, p.leaseKey(agentID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("agent lease set: %w", err)
	}
	return nil
}

// MarkUnavailable removes the agent from the pool and drops its lease.
func (p *AgentPool) MarkUnavailable(ctx context.Context, agentID string) error {
	if err := p.client.SRem(ctx, poolKey, agentID).Err(); err != nil {
		return fmt.Errorf("agent pool remove: %w", err)
	}
	if err := p.client.Del(ctx, p.leaseKey(agentID)).Err(); err != nil {
		return fmt.Errorf("agent lease del: %w", err)
	}
	return nil
}

// Available returns the agents whose lease is still live, pruning pool
// members whose lease has lapsed.
func (p *AgentPool) Available(ctx context.Context) ([]string, error) {
	members, err := p.client.SMembers(ctx, poolKey).Result()
	if err != nil {
		return nil, fmt.Errorf("agent pool members: %w", err)
	}

	var live []string
	for _, id := range members {
		n, err := p.client.Exists(ctx, p.leaseKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("agent lease check: %w", err)
		}
		if n > 0 {
			live = append(live, id)
			continue
		}
		// lease expired: drop from the set so the pool stays tidy
		if err := p.client.SRem(ctx, poolKey, id).Err(); err != nil {
			return nil, fmt.Errorf("agent pool prune: %w", err)
		}
	}
	return live, nil
}

func (p *AgentPool) leaseKey(agentID string) string {
	return leasePrefix + agentID
}
