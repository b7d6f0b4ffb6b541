package server

import (
	"encoding/json"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/klppl/onepagepub/internal/vocab"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// activityJSON writes v as an application/activity+json body.
func activityJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", vocab.MediaType)
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(b)
}

// jrdJSON writes v as an application/jrd+json body (WebFinger, NodeInfo
// link discovery).
func jrdJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", vocab.JRDMediaType)
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(b)
}

// writeDoc writes a stored vocab.Doc as an activity+json body. The Doc is
// marshalled from its map, so the stored JSON's key order is not preserved.
func writeDoc(w http.ResponseWriter, d vocab.Doc) {
	w.Header().Set("Content-Type", vocab.MediaType)
	b, err := d.Bytes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(b)
}

// writeErr maps an apierr.Kind (or any error) to its HTTP status and emits
// a minimal JSON problem body, per §7.
func writeErr(w http.ResponseWriter, err error) {
	status := apierr.Status(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
