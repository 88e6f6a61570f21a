package template

import (
	"fmt"
	"strings"
)

// AliasResolver resolves an ImageID that is either already a literal AMI
// id (ami-...) or a name registered in a static alias map, loaded once
// from the template config's ami_alias_file.
//
// An SSM-parameter-path alias (resolve:ssm:/path/to/param) is recognized
// and rejected with a clear error rather than silently passed through —
// resolving it against a live SSM client is an extension point this
// package does not implement (see DESIGN.md).
type AliasResolver struct {
	aliases map[string]string
}

// NewAliasResolver builds a resolver from a literal alias -> AMI id map.
func NewAliasResolver(aliases map[string]string) *AliasResolver {
	return &AliasResolver{aliases: aliases}
}

func (r *AliasResolver) Resolve(imageIDOrAlias string) (string, error) {
	if strings.HasPrefix(imageIDOrAlias, "ami-") {
		return imageIDOrAlias, nil
	}
	if strings.HasPrefix(imageIDOrAlias, "resolve:ssm:") {
		return "", fmt.Errorf("ssm-backed alias resolution is not implemented: %s", imageIDOrAlias)
	}
	resolved, ok := r.aliases[imageIDOrAlias]
	if !ok {
		return "", fmt.Errorf("no alias registered for %q", imageIDOrAlias)
	}
	return resolved, nil
}
