// Package shared holds utilities used across the codebase that belong
// to no specific domain layer. Its only subpackage today is testutil,
// which provides slog capture helpers for tests.
package shared
