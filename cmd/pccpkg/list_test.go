package main

import (
	"reflect"
	"testing"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/installation"
)

func TestAddLanguages(t *testing.T) {
	root := writeSite(t)
	inst, err := installation.Load(fileaccess.NewOS(), root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	exts, err := inst.Extensions()
	if err != nil {
		t.Fatalf("Extensions() error = %v", err)
	}

	report := extensionReport(inst, exts)
	if len(report.Extensions) != 1 {
		t.Fatalf("expected 1 extension, got %d", len(report.Extensions))
	}
	if report.Extensions[0].Languages != nil {
		t.Errorf("languages filled without being requested: %v", report.Extensions[0].Languages)
	}

	addLanguages(inst, report)
	want := map[string][]string{"site": {"en-GB.mod_pccproducts.ini"}}
	if got := report.Extensions[0].Languages; !reflect.DeepEqual(got, want) {
		t.Errorf("Languages = %v, want %v", got, want)
	}
}

func TestListRejectsUnknownType(t *testing.T) {
	listType = "plugin"
	t.Cleanup(func() { listType = "" })

	err := runList(listCmd, nil)
	if err == nil {
		t.Fatal("expected an error for an unsupported type")
	}
	if want := `unknown extension type "plugin": expecting one of component, module, package`; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
