// Package repository defines the data-access interfaces of the CMDB core:
// entity and relationship CRUD, catalog reads, and the health checks.
// The sqlite subpackage provides the production implementation.
package repository
