// Package health serves the liveness and readiness probes.
//
// A readiness probe runs every named [CheckFunc] concurrently under one
// deadline and answers 503 when any of them fails. Probes reply with plain
// text unless the client sends Accept: application/json or ?format=json:
//
//	{"status":"unhealthy","checks":{"postgres":{"status":"healthy","took":"1.2ms"},
//	 "redis":{"status":"unhealthy","error":"redis: healthcheck failed","took":"3ms"}}}
package health
