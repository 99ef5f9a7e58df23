// Package httpbin serves a small httpbin-style echo API used to exercise
// HTTP clients end to end.
//
// # Endpoints
//
//	GET  /get                        echo args, headers, origin and url
//	POST /post                       echo data, form, json, args and headers
//	GET  /ip                         {"origin": "..."}
//	GET  /headers                    {"headers": {...}}
//	GET  /basic-auth/{user}/{passwd} 200 when Basic credentials match, else 401
//	ANY  /status/{code}              empty answer with the given status
//	GET  /delay/{duration}           /get after a wait ("2" or "250ms")
//	GET  /bytes/{n}                  n random bytes, ?seed= for repeatability
//	GET  /encoding/{charset}         fixed text in the given charset
//	ANY  /anything[/...]             echo of any method
//	GET  /metrics                    Prometheus metrics
//
// Echoed Authorization headers are masked.
//
// # Usage
//
//	server := httpbin.New(
//	    httpbin.WithAddr(":8080"),
//	    httpbin.WithLogger(logger),
//	)
//	if err := server.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// In tests, mount the handler on httptest:
//
//	ts := httptest.NewServer(httpbin.New(httpbin.WithLogger(zerolog.Nop())).Handler())
//	defer ts.Close()
package httpbin
