package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/types"
)

// AppendTemplate validates tmpl and appends it to the YAML template file at
// path, creating the file if it does not yet exist. It is the write path
// backing the `hostbroker template new` wizard (SUPPLEMENTED FEATURES 3):
// the Store above is otherwise read-only, since every other caller only
// ever needs to list/resolve templates, not author them.
func AppendTemplate(path string, tmpl types.Template) error {
	if err := tmpl.Validate(); err != nil {
		return brokererr.Wrap(brokererr.KindValidation, fmt.Sprintf("template %q", tmpl.TemplateID), err)
	}

	var doc fileDocument
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return brokererr.Wrap(brokererr.KindStorage, "parse template file", err)
		}
	case os.IsNotExist(err):
		// starting a fresh template file
	default:
		return brokererr.Storage("read template file", err)
	}

	for _, existing := range doc.Templates {
		if existing.TemplateID == tmpl.TemplateID {
			return brokererr.Validation("duplicate template id %q", tmpl.TemplateID)
		}
	}

	doc.Templates = append(doc.Templates, fromDomain(tmpl))

	out, err := yaml.Marshal(doc)
	if err != nil {
		return brokererr.Wrap(brokererr.KindStorage, "marshal template file", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return brokererr.Storage("write template file", err)
	}
	return nil
}

func fromDomain(t types.Template) fileTemplate {
	return fileTemplate{
		TemplateID:         t.TemplateID,
		Strategy:           string(t.Strategy),
		MaxNumber:          t.MaxNumber,
		ImageID:            t.ImageID,
		SingleSubnet:       t.Network.SingleSubnet,
		SubnetSet:          t.Network.SubnetSet,
		SingleType:         t.MachineType.SingleType,
		TypeWeight:         t.MachineType.TypeWeight,
		SecurityGroupIDs:   t.SecurityGroupIDs,
		KeyName:            t.KeyName,
		UserData:           t.UserData,
		SpotRoleARN:        t.SpotRoleARN,
		MaxPrice:           t.MaxPrice,
		AllocationStrategy: string(t.AllocationStrategy),
		Tags:               t.Tags,
	}
}
