package server

import "net/http"

// handleNodeInfoLinks serves the NodeInfo discovery document per the
// NodeInfo spec's well-known link relation.
func (s *Server) handleNodeInfoLinks(w http.ResponseWriter, r *http.Request) {
	jrdJSON(w, map[string]interface{}{
		"links": []map[string]string{
			{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": s.cfg.IRI("/nodeinfo/2.0"),
			},
		},
	})
}

// handleNodeInfo serves the NodeInfo 2.0 document itself: software
// identity and usage counts, consumed by federation directories and
// instance pickers.
func (s *Server) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	jsonAPI.NewEncoder(w).Encode(map[string]interface{}{
		"version": "2.0",
		"software": map[string]string{
			"name":    "onepagepub",
			"version": version,
		},
		"protocols": []string{"activitypub"},
		"services": map[string][]string{
			"inbound":  {},
			"outbound": {},
		},
		"openRegistrations": true,
		"usage": map[string]interface{}{
			"users": map[string]int{
				"total": stats.TotalActors,
			},
			"localPosts": stats.TotalObjects,
		},
		"metadata": map[string]interface{}{},
	})
}
