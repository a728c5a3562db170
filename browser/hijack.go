package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// allowSet builds a case-insensitive lookup of resource type names
// ("document", "Script", "XHR", ...).
func allowSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	return set
}

// allowed reports whether a request of type rt may continue.
func allowed(set map[string]struct{}, rt proto.NetworkResourceType) bool {
	_, ok := set[strings.ToLower(string(rt))]
	return ok
}

// routeAdder is the part of *rod.HijackRouter used to register routes.
type routeAdder interface {
	Add(pattern string, resourceType proto.NetworkResourceType, handler func(*rod.Hijack)) error
}

// addAllowlistRoute routes every request through the allowlist.
// Pattern "*" with an empty resource type intercepts all requests.
func addAllowlistRoute(r routeAdder, set map[string]struct{}) error {
	err := r.Add("*", "", func(ctx *rod.Hijack) {
		if !allowed(set, ctx.Request.Type()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return fmt.Errorf("hijack: add allowlist route: %w", err)
	}
	return nil
}

// setupHijack installs a request interceptor on the page that fails every
// request whose resource type is not in allowedTypes.
//
// Returns the running HijackRouter so the owner can Stop it, or nil if
// there is nothing to block.
func setupHijack(page *rod.Page, allowedTypes []string) (*rod.HijackRouter, error) {
	set := allowSet(allowedTypes)
	if len(set) == 0 {
		return nil, nil
	}

	router := page.HijackRequests()
	if err := addAllowlistRoute(router, set); err != nil {
		_ = router.Stop()
		return nil, err
	}

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router, nil
}
