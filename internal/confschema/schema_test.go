package confschema

import "testing"

func TestSchemaCloneIsIndependent(t *testing.T) {
	base := &Schema{Entries: []*Entry{
		{Key: "logfile", Type: TypeString, StringDefault: "/var/log/netlogd.log"},
	}}

	clone := base.Clone()
	clone.ByKey("logfile").StringValue = "mutated"

	if base.ByKey("logfile").StringValue == "mutated" {
		t.Fatal("mutating a clone's entry must not affect the original schema")
	}
}

func TestSchemaByKeyMissing(t *testing.T) {
	s := &Schema{Entries: []*Entry{{Key: "a"}}}
	if s.ByKey("missing") != nil {
		t.Fatal("expected nil for unknown key")
	}
}
