package services

import "strings"

// FQDNParts holds the naming-convention fields of a host label
// (env-db-dc-zone-node.domain). Fields at index >= Count are absent.
type FQDNParts struct {
	Env   string
	DB    string
	DC    string
	Zone  string
	Node  string
	Count int
}

const maxFQDNFields = 5

// ParseFQDN splits the leftmost label of fqdn on "-". It never fails;
// unusable input yields the zero value.
func ParseFQDN(fqdn string) FQDNParts {
	fqdn = strings.TrimSpace(fqdn)
	if fqdn == "" {
		return FQDNParts{}
	}
	label, _, _ := strings.Cut(fqdn, ".")
	if label == "" {
		return FQDNParts{}
	}

	segs := strings.SplitN(label, "-", maxFQDNFields+1)
	if len(segs) > maxFQDNFields {
		segs = segs[:maxFQDNFields]
	}

	var p FQDNParts
	dst := []*string{&p.Env, &p.DB, &p.DC, &p.Zone, &p.Node}
	for i, s := range segs {
		*dst[i] = s
	}
	p.Count = len(segs)
	return p
}

// Conventional reports whether the label carried at least one "-",
// i.e. it follows the env-db-... naming scheme.
func (p FQDNParts) Conventional() bool { return p.Count > 1 }
