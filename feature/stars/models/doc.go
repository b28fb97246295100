// Package models defines the domain types shared across the stars feature:
// the normalized repository record and the per-pass snapshot of the Notion
// database.
package models
