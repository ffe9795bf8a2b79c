// Package services implements the retrieval engine's business logic on top
// of the driven ports: the ingestion pipeline, the similarity search
// engine, and the shared cache-aware embedding path they both use.
package services
