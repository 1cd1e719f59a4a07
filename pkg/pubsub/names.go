package pubsub

import "strings"

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

// qualify expands a short ID into projects/<project>/<kind>/<id>. A name that
// is already fully qualified for kind is returned as is. The result is empty
// when either part is missing.
func qualify(project, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/" + kind + "/" + name
}
