// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// Services receive their dependencies through constructor injection and
// depend only on domain entities and store interfaces, never on concrete
// infrastructure. The AIGC service owns task lifecycle and stage-entry
// operations, the publish service owns the digital-human publish pipeline,
// and the usage limiter enforces per-client generation quotas.
package service
