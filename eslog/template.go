package eslog

import "github.com/valyala/fastjson"

// Template is a legacy index template: settings and mappings applied to
// every new index whose name matches Pattern.
type Template struct {
	Order    int                `json:"order"`
	Pattern  string             `json:"template"`
	Settings TemplateSettings   `json:"settings"`
	Mappings map[string]Mapping `json:"mappings"`
	Aliases  map[string]any     `json:"aliases"`
}

// TemplateSettings holds the index settings of a template.
type TemplateSettings struct {
	Index IndexSettings `json:"index"`
}

// IndexSettings are the shard layout of an index. The store expects them as
// strings on the wire.
type IndexSettings struct {
	Shards   int `json:"number_of_shards,string"`
	Replicas int `json:"number_of_replicas,string"`
}

// Mapping is the field mapping of one document type.
type Mapping struct {
	Properties map[string]Field `json:"properties"`
}

// Field is a mapped field.
type Field struct {
	Type string `json:"type"`
}

// DefaultTemplate returns the template registered by a logger with the
// default prefix and document type: every "logs-*" index gets 5 shards,
// 3 replicas and text/date mappings for level, message and timestamp under
// the "logs" type.
func DefaultTemplate() Template {
	return templateFor(DefaultPrefix, DefaultDocType)
}

func templateFor(prefix, docType string) Template {
	return Template{
		Order:   1,
		Pattern: prefix + "-*",
		Settings: TemplateSettings{
			Index: IndexSettings{Shards: 5, Replicas: 3},
		},
		Mappings: map[string]Mapping{
			docType: {
				Properties: map[string]Field{
					FieldLevel:     {Type: "text"},
					FieldMessage:   {Type: "text"},
					FieldTimestamp: {Type: "date"},
				},
			},
		},
		Aliases: map[string]any{},
	}
}

func (t Template) isZero() bool {
	return t.Pattern == "" && t.Mappings == nil && t.Order == 0
}

func isJSONObject(b []byte) bool {
	v, err := fastjson.ParseBytes(b)
	return err == nil && v.Type() == fastjson.TypeObject
}
