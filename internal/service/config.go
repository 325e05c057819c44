package service

import "strings"

// Version is reported by every service's root endpoint.
const Version = "1.0.0"

// Config identifies one service stub. The three stubs differ only in these
// values.
type Config struct {
	// Name is the value reported as "service" in health responses.
	Name string
	// Title is the human name, used in the root message and startup logs.
	Title       string
	Version     string
	DefaultPort int
	// BasePath is the prefix the shared API routes to this service. The
	// Lambda adapter strips it before the request reaches the router.
	BasePath string
}

var (
	User = Config{
		Name:        "user-service",
		Title:       "User Service",
		Version:     Version,
		DefaultPort: 3001,
		BasePath:    "/users",
	}
	Store = Config{
		Name:        "store-service",
		Title:       "Store Service",
		Version:     Version,
		DefaultPort: 3002,
		BasePath:    "/stores",
	}
	Order = Config{
		Name:        "order-service",
		Title:       "Order Service",
		Version:     Version,
		DefaultPort: 3003,
		BasePath:    "/orders",
	}
)

// Catalog returns the known services in deployment order.
func Catalog() []Config {
	return []Config{User, Store, Order}
}

// Lookup finds a service by its name ("store-service") or short name ("store").
func Lookup(name string) (Config, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, cfg := range Catalog() {
		if cfg.Name == name || strings.TrimSuffix(cfg.Name, "-service") == name {
			return cfg, true
		}
	}
	return Config{}, false
}
