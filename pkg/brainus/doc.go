// Package brainus is a Go client for the Brainus AI API, a retrieval-augmented
// generation service that answers questions from curated educational content.
//
// The main components include:
//
// - Client interface: Query, GetUsage and GetPlans
// - HTTPClient: the Client implementation talking to the API over HTTPS
// - Error: a single error type whose Kind tells authentication, rate-limit,
// quota and generic API failures apart
// - Middleware: hooks around every call, with logging and stats built in
// - WithRetry: an opt-in wrapper that honors the server's retry-after
//
// Basic usage:
//
//	client, err := brainus.NewClient(brainus.ClientConfig{APIKey: os.Getenv("BRAINUS_API_KEY")})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() { _ = client.Close() }()
//
//	resp, err := client.Query(ctx, brainus.QueryRequest{
//		Query:   "Explain inheritance in programming",
//		Filters: brainus.NewQueryFilters().WithSubject("ICT").WithGrade("12"),
//	})
//	switch brainus.KindOf(err) {
//	case brainus.KindAuthentication:
//		// bad key
//	case brainus.KindRateLimit:
//		if secs, ok := brainus.RetryAfterOf(err); ok {
//			// wait secs seconds
//		}
//	}
//
// A test double implementing Client lives in /pkg/mock.
package brainus
