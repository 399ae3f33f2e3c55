// ABOUTME: Guarded placeholder pages for the storefront frontend routes
// ABOUTME: The frontend probes these to decide whether a session is still valid

package api

import "net/http"

var userPages = map[string]string{
	"/":                "Welcome to landing page",
	"/all-product":     "Welcome to all product",
	"/product-cart":    "Welcome to product cart",
	"/product-history": "Welcome to product history",
	"/cart":            "Welcome to cart",
}

var adminPages = map[string]string{
	"/admin-dashboard":         "Welcome to admin dashboard",
	"/admin-order":             "Welcome to admin order",
	"/admin-product-dashboard": "Welcome to admin product dashboard",
}

func pageHandler(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	}
}
