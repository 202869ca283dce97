package measurement

import (
	"sort"
	"strings"

	"scan-analysis/models"
)

// ClusterMap groups queried domains by the (type, port, server) that
// answered them: "type-port" -> server -> domains.
type ClusterMap struct {
	clusters   map[string]map[string]map[string]struct{}
	groups     map[string]models.ClusterKey // group -> type and port
	Incomplete int                          // Protocols entries skipped for a missing field
}

func NewClusterMap() *ClusterMap {
	return &ClusterMap{
		clusters: make(map[string]map[string]map[string]struct{}),
		groups:   make(map[string]models.ClusterKey),
	}
}

// NormalizeProtocol derives the cluster key of one Protocols entry. Port 0
// counts as missing.
func NormalizeProtocol(p *models.ProtocolInfo) models.ClusterKey {
	port := strings.TrimSpace(string(p.Port))
	if port == "0" {
		port = ""
	}
	return models.ClusterKey{
		Type:   strings.ToLower(strings.TrimSpace(p.Type)),
		Port:   port,
		Server: strings.TrimSuffix(strings.TrimSpace(p.Server), "."),
	}
}

// AddRecord adds domain under every complete Protocols entry found in
// results. Absent, null and empty results contribute nothing. The returned
// errors describe skipped entries and are informational only.
func (c *ClusterMap) AddRecord(domain string, results ...models.CheckResults) []error {
	var skipped []error
	for _, res := range results {
		for _, mc := range res.Configs() {
			for _, proto := range mc.Protocols {
				if proto == nil {
					continue
				}
				key := NormalizeProtocol(proto)
				if key.Type == "" || key.Server == "" || key.Port == "" {
					c.Incomplete++
					skipped = append(skipped, &IncompleteClusterEntryError{
						Domain: domain, Type: key.Type, Server: key.Server, Port: key.Port,
					})
					continue
				}
				c.add(key, domain)
			}
		}
	}
	return skipped
}

// AddCheckResult adds every check-type field of r.
func (c *ClusterMap) AddCheckResult(r *models.DomainCheckResult) []error {
	return c.AddRecord(r.Domain, r.All()...)
}

func (c *ClusterMap) add(key models.ClusterKey, domain string) {
	servers, ok := c.clusters[key.Group()]
	if !ok {
		servers = make(map[string]map[string]struct{})
		c.clusters[key.Group()] = servers
		c.groups[key.Group()] = models.ClusterKey{Type: key.Type, Port: key.Port}
	}
	domains, ok := servers[key.Server]
	if !ok {
		domains = make(map[string]struct{})
		servers[key.Server] = domains
	}
	domains[domain] = struct{}{}
}

// Merge unions other into c.
func (c *ClusterMap) Merge(other *ClusterMap) {
	for group, servers := range other.clusters {
		g := other.groups[group]
		for server, domains := range servers {
			for d := range domains {
				c.add(models.ClusterKey{Type: g.Type, Port: g.Port, Server: server}, d)
			}
		}
	}
	c.Incomplete += other.Incomplete
}

// Len returns the number of distinct (type, port, server) targets.
func (c *ClusterMap) Len() int {
	n := 0
	for _, servers := range c.clusters {
		n += len(servers)
	}
	return n
}

// Keys lists every target once, sorted by group then server.
func (c *ClusterMap) Keys() []models.ClusterKey {
	var keys []models.ClusterKey
	for group, servers := range c.clusters {
		g := c.groups[group]
		for server := range servers {
			keys = append(keys, models.ClusterKey{Type: g.Type, Port: g.Port, Server: server})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group() != keys[j].Group() {
			return keys[i].Group() < keys[j].Group()
		}
		return keys[i].Server < keys[j].Server
	})
	return keys
}

// Domains returns the domains served by key, sorted.
func (c *ClusterMap) Domains(key models.ClusterKey) []string {
	return mapToSlice(c.clusters[key.Group()][key.Server])
}

// Export renders {type-port: {server: [domains]}}.
func (c *ClusterMap) Export() map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(c.clusters))
	for group, servers := range c.clusters {
		hosts := make(map[string][]string, len(servers))
		for server, domains := range servers {
			hosts[server] = mapToSlice(domains)
		}
		out[group] = hosts
	}
	return out
}
