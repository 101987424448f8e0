// hostsfile.go - INI-style hosts inventory parsing
package services

import "strings"

// PlatformFromRepo derives the platform column from a repository name
// ("aws-prod-infra" -> "aws").
func PlatformFromRepo(repo string) string {
	p, _, _ := strings.Cut(strings.TrimSpace(repo), "-")
	return p
}

// ParseHostsFile turns an inventory text into rows in file order.
//
// Lines are trimmed; blanks and comments ("#", ";") are skipped. A
// "[group]" header sets the group context used for env/db defaults.
// Any other line names a host by its first field; trailing inventory
// vars ("ansible_host=...") are ignored. Sections named "[x:vars]" or
// "[x:children]" hold variables and group names, not hosts, and are skipped.
func ParseHostsFile(text, repo string) []HostRecord {
	platform := PlatformFromRepo(repo)
	var (
		out      []HostRecord
		group    string
		skipping bool
	)
	for raw := range strings.Lines(text) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			group = strings.TrimSpace(line[1 : len(line)-1])
			skipping = strings.HasSuffix(group, ":vars") || strings.HasSuffix(group, ":children")
			continue
		}
		if skipping {
			continue
		}
		fs := strings.Fields(line)
		if len(fs) == 0 {
			continue
		}
		out = append(out, buildRecord(fs[0], group, platform, repo))
	}
	return out
}

// buildRecord applies the field precedence: a conventional label
// (contains "-") wins field by field and the group fills the gaps; a label
// without "-" takes env and db from the group only.
func buildRecord(fqdn, group, platform, repo string) HostRecord {
	parts := ParseFQDN(fqdn)
	gEnv, gDB := groupDefaults(group)

	rec := HostRecord{
		FQDN:     fqdn,
		Platform: platform,
		IP:       IPResolving,
		Repo:     repo,
	}
	if !parts.Conventional() {
		rec.Env, rec.DB = gEnv, gDB
		return rec
	}
	rec.Env = firstNonEmpty(parts.Env, gEnv)
	rec.DB = firstNonEmpty(parts.DB, gDB)
	rec.DC = parts.DC
	rec.Zone = parts.Zone
	rec.Node = parts.Node
	return rec
}

func groupDefaults(group string) (env, db string) {
	if group == "" {
		return "", ""
	}
	segs := strings.Split(group, "-")
	env = segs[0]
	if len(segs) > 1 {
		db = segs[1]
	}
	return env, db
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
