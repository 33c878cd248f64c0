// internal/domain/models/errors.go
package models

import (
	"errors"

	"github.com/dalemusser/mdregistry/internal/domain/roles"
)

var (
	// ErrInvalidRole signals a role value outside the closed role set.
	ErrInvalidRole = roles.ErrInvalidRole
	// ErrWorkgroupArchived signals a mutation attempted on an archived workgroup.
	ErrWorkgroupArchived = errors.New("workgroup is archived")
	// ErrPermissionDenied signals the actor lacks a qualifying role or capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound signals a workgroup, user or item id that does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
