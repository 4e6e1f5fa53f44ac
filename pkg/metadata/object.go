package metadata

// Object is an objectified metadata element keyed by child element name.
type Object map[string]any

// Type returns the _type discriminator.
func (o Object) Type() string {
	s, _ := o[TypeKey].(string)
	return s
}

// String returns a text field, or "" when absent or not text.
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Bool returns a boolean field. Managed properties such as IsAuditEnabled
// carry their flag in a nested Value.
func (o Object) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case Object:
		b, _ := v["Value"].(bool)
		return b
	}
	return false
}

// Int returns an integer field, or 0.
func (o Object) Int(key string) int {
	n, _ := o[key].(int)
	return n
}

// Object returns a nested object, or nil.
func (o Object) Object(key string) Object {
	obj, _ := o[key].(Object)
	return obj
}

// Array returns a list field, or nil.
func (o Object) Array(key string) []any {
	list, _ := o[key].([]any)
	return list
}

// Objects returns the object elements of a list field.
func (o Object) Objects(key string) []Object {
	var out []Object
	for _, v := range o.Array(key) {
		if obj, ok := v.(Object); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Label returns the user-localized text of a Label field such as
// DisplayName, falling back to the first localized label.
func (o Object) Label(key string) string {
	label := o.Object(key)
	if label == nil {
		return ""
	}
	if user := label.Object("UserLocalizedLabel"); user != nil {
		if s := user.String("Label"); s != "" {
			return s
		}
	}
	for _, l := range label.Objects("LocalizedLabels") {
		if s := l.String("Label"); s != "" {
			return s
		}
	}
	return ""
}
