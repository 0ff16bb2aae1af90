// Package api implements the HTTP REST API for Gray Logic Fleet.
//
// This package provides:
//   - One REST collection per entity kind under /api/v1/{kind}
//   - JWT bearer authentication with role-based permissions
//   - Conditional writes through etags (body "etag" field or If-Match)
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Routes
//
//	GET    /api/v1/health                      no auth
//	POST   /api/v1/auth/token                  token:issue
//	GET    /api/v1/audit                       fleet:read
//	GET    /api/v1/{kind}                      fleet:read
//	POST   /api/v1/{kind}                      fleet:manage
//	GET    /api/v1/{kind}/{id}                 fleet:read
//	PATCH  /api/v1/{kind}/{id}                 fleet:manage
//	DELETE /api/v1/{kind}/{id}                 fleet:manage
//	POST   /api/v1/{kind}/{id}/disable         fleet:manage
//	POST   /api/v1/{kind}/{id}/enable          fleet:manage
//
// {kind} is one of applications, endpoints, gateways, supervisors,
// discoverers or publishers. Bodies are the entity service models.
// Successful writes and token issues are appended to the audit trail.
//
// # Errors
//
// Validation failures answer 400, unknown entities 404, and identity
// collisions or stale etags 409. A PATCH that changes an application's or
// endpoint's identity answers 200 with a Location header naming the new ID.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB. /health reports them as
// down and the service as degraded.
package api
