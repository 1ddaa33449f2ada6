// Package restocked tracks third-party product pages over time, detects
// price and stock changes, and emits notifications. It fetches product
// pages (plain HTTP with a scripted-browser fallback), extracts a canonical
// product/variant representation from heterogeneous markup, reconciles it
// against persisted state, and records material changes exactly once.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/) or their
// orchestration concern (fetch/, extract/, check/).
package restocked
