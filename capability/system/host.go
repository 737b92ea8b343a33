// Package system groups providers that touch the underlying operating
// system, locally or over SSH.
package system

// Host identifies the machine commands run on. URL uses an afs-style
// scheme, e.g. bash://localhost/ or ssh://10.0.0.5:22/.
type Host struct {
	URL         string `json:"url,omitempty"`
	Credentials string `json:"credentials,omitempty"`
}

// IsLocal reports whether the host refers to the local machine.
func (h *Host) IsLocal() bool {
	return h == nil || h.URL == "" || h.URL == "bash://localhost/"
}
