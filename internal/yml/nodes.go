package yml

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type Nodes []*yaml.Node

// LookupValueNode returns the value node paired with the given mapping key,
// matched case-insensitively.
func (n Nodes) LookupValueNode(name string) *yaml.Node {
	for i := 0; i+1 < len(n); i += 2 {
		if strings.EqualFold(n[i].Value, name) {
			return n[i+1]
		}
	}
	return nil
}
