// Package prometheus renders the engine's metric snapshot in Prometheus
// text exposition format. It writes the format directly so the engine
// carries no client-library dependency on its scrape path.
package prometheus
