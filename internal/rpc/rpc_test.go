package rpc

import (
	"context"
	"testing"

	"github.com/jhump/protoreflect/dynamic"
)

func TestLoadServiceDescriptorFindsCompileMethod(t *testing.T) {
	sd, err := loadServiceDescriptor()
	if err != nil {
		t.Fatalf("loadServiceDescriptor: %s", err)
	}
	if sd.FindMethodByName("Compile") == nil {
		t.Fatal("expected a Compile method on CompileService")
	}
}

func TestHandleUnaryCompilesCleanSource(t *testing.T) {
	sd, err := loadServiceDescriptor()
	if err != nil {
		t.Fatalf("loadServiceDescriptor: %s", err)
	}
	md := sd.FindMethodByName("Compile")
	h := &CompileHandler{SD: sd}

	reqMsg := dynamic.NewMessage(md.GetInputType())
	reqMsg.SetFieldByName("source", "x:i32 = 42\npanic\n")

	dec := func(v interface{}) error {
		target := v.(*dynamic.Message)
		return target.Unmarshal(mustMarshal(t, reqMsg))
	}

	out, err := h.HandleUnary(context.Background(), md, dec)
	if err != nil {
		t.Fatalf("HandleUnary: %s", err)
	}
	outMsg := out.(*dynamic.Message)
	if valid, _ := outMsg.GetFieldByName("valid").(bool); !valid {
		t.Fatal("expected a valid compile response")
	}
	if n, _ := outMsg.GetFieldByName("inst_count").(int32); n != 3 {
		t.Errorf("expected inst_count 3, got %d", n)
	}
}

func TestHandleUnaryReportsDiagnosticOnError(t *testing.T) {
	sd, err := loadServiceDescriptor()
	if err != nil {
		t.Fatalf("loadServiceDescriptor: %s", err)
	}
	md := sd.FindMethodByName("Compile")
	h := &CompileHandler{SD: sd}

	reqMsg := dynamic.NewMessage(md.GetInputType())
	reqMsg.SetFieldByName("source", "x:i32 = 1\n\t y:i32 = 2\n")

	dec := func(v interface{}) error {
		target := v.(*dynamic.Message)
		return target.Unmarshal(mustMarshal(t, reqMsg))
	}

	out, err := h.HandleUnary(context.Background(), md, dec)
	if err != nil {
		t.Fatalf("HandleUnary: %s", err)
	}
	outMsg := out.(*dynamic.Message)
	if valid, _ := outMsg.GetFieldByName("valid").(bool); valid {
		t.Fatal("expected an invalid compile response")
	}
	if json, _ := outMsg.GetFieldByName("diagnostics_json").(string); json == "" {
		t.Fatal("expected a non-empty diagnostics_json")
	}
}

func mustMarshal(t *testing.T, msg *dynamic.Message) []byte {
	t.Helper()
	data, err := msg.Marshal()
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}
	return data
}
