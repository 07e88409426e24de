// Package http provides the JSON HTTP client shared by the catalog clients.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Timeout handling
//   - Client-side rate limiting
//   - Retries with exponential cooldown on 429 and 5xx responses
//
// # Basic Usage
//
//	client := http.NewClient(http.WithRateLimit(8))
//
//	var track dto.Track
//	err := client.GetJSON(ctx, "https://api.deezer.com/track/3135556", &track)
//
// Non-2xx responses are returned as *StatusError.
package http
