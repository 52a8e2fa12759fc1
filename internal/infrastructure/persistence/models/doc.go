// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// The unified order relations and the KPI rollup tables are the exception: they
// are write-once analytical rows with no behavior, so the domain structs carry
// their own column mappings and the repositories persist them directly.
//
// Structure:
// - base.go: Base persistence model shared by all tables
// - identity.go: User account model for authentication
package models
