/*
Package resilience guards calls to the release feed with a circuit breaker.

A feed that keeps failing is skipped for a cool-down period instead of being
hit on every check. After the cool-down one probe call is let through; if it
succeeds the breaker closes again.

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                              |
	                                          [failure]
	                                              v
	                                            Open

Usage:

	breaker := resilience.New("release-feed", resilience.Settings{
		Threshold: 3,
		Cooldown:  30 * time.Minute,
	})
	err := breaker.Do(ctx, func(ctx context.Context) error {
		return client.Fetch(ctx)
	})
*/
package resilience
