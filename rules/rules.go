//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo detects goroutines tracked with Add/Done that can use wg.Go (Go 1.25+).
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    doSomething()
//	}()
//
// becomes
//
//	wg.Go(func() {
//	    doSomething()
//	})
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")

	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }() (Go 1.25+)")
}

// TestingContext detects context.Background() or context.TODO() in tests.
// t.Context() is cancelled when the test completes, which stops stray goroutines
// before goleak checks run.
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx = context.Background()`,
		`$ctx := context.TODO()`,
		`$ctx = context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of a background context (Go 1.24+)")

	m.Match(
		`$fn(context.Background(), $*args)`,
		`$fn(context.TODO(), $*args)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of a background context (Go 1.24+)")
}

// EnhancedErrors keeps error construction in internal packages on internal/errors,
// so every error carries a component and category for telemetry.
func EnhancedErrors(m dsl.Matcher) {
	m.Import("errors")

	m.Match(`errors.New($msg)`).
		Where(m.File().Imports("errors") &&
			m.File().PkgPath.Matches(`/internal/`) &&
			!m.File().PkgPath.Matches(`/internal/errors$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use github.com/friendswall/friendswall-go/internal/errors: errors.Newf($msg).Component(...).Category(...).Build()")
}

// StructuredLogging flags printf-style logging in internal packages; components
// log through an injected logger.Logger.
func StructuredLogging(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`fmt.Printf($*_)`,
		`fmt.Println($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("log through an injected logger.Logger instead of printing")
}
