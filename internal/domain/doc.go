// Package domain defines the core CMDB types: entities (configuration
// items), typed directed relationships between them, the read-only type
// catalogs with their property schemas, and the error taxonomy shared by
// the repository, service, and HTTP layers.
package domain
