// Package template manages named, versioned notification templates: pgx
// storage with goose migrations, a Redis read-through cache invalidated on
// update and delete, {{variable}} placeholder rendering, and a chi HTTP API.
package template
