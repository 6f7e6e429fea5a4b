// Package apiclient provides the request pipeline for the figureshelf REST backend.
//
// Every call goes through Client.Do, which resolves the base URL for the client's
// scope, attaches credentials, decodes and validates the JSON response and maps
// failures onto typed errors.
//
// # Scopes
//
//   - ScopeService: server-initiated calls. Requests go to the configured origin
//     (or https://<deployment host>, or DefaultOrigin) and carry the internal API key.
//   - ScopeUser: calls on behalf of an end user. Requests go through the front end's
//     reverse proxy and carry the user's access token as a bearer credential.
//
// # Token refresh
//
// A user-scoped request answered with 401 triggers a token refresh, unless it already
// carries the X-Retry marker. Refreshes are single-flighted per credential key by a
// Coordinator: callers that hit a 401 while a refresh is running wait for it and share
// its outcome. On success each caller replays its own request once with X-Retry set;
// on failure each caller receives the refresh error. A second 401 after the replay is
// returned as is.
//
//	coord := apiclient.NewCoordinator()
//	client, err := apiclient.NewClient(endpoints, internalKey, logger,
//		apiclient.WithCoordinator(coord),
//	)
//	if err != nil {
//		return err
//	}
//
//	var figure FigureDetails
//	err = client.ForUser(creds).Get(ctx, "/api/figures/42", &figure)
//
// # Error Handling
//
//   - TransportError: the request never produced a response
//   - APIError: non-2xx response with status code and parsed body
//   - ValidationError: 2xx response whose body did not match the target type
//   - RefreshError, ErrNoRefreshToken: the 401 could not be recovered
package apiclient
