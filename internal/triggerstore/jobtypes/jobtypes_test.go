package jobtypes

import "testing"

func TestResolve_RegisteredType(t *testing.T) {
	r := New()
	r.Register("report.generate")

	if err := r.Resolve("report.generate"); err != nil {
		t.Errorf("expected registered type to resolve, got error: %v", err)
	}
}

func TestResolve_UnregisteredType(t *testing.T) {
	r := New()
	r.Register("report.generate")

	if err := r.Resolve("ghost.job"); err == nil {
		t.Error("expected an error resolving an unregistered job type")
	}
}

func TestResolve_EmptyRegistry(t *testing.T) {
	r := New()
	if err := r.Resolve("anything"); err == nil {
		t.Error("expected an error resolving against an empty registry")
	}
}
