package middleware

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/campusshare/campusshare/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeError writes he as {"error": he} with its status code.
func writeError(w http.ResponseWriter, he *errs.HTTPError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Status)
	_ = json.NewEncoder(w).Encode(map[string]*errs.HTTPError{"error": he})
}
