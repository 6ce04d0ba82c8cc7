package rpc

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"

	"github.com/nerdalytics/tinywhale/internal/cache"
	"github.com/nerdalytics/tinywhale/internal/config"
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/preprocess"
	"github.com/nerdalytics/tinywhale/pkg/compiler"
)

// CompileHandler adapts pkg/compiler.Compile to the dynamic unary gRPC
// shape the teacher's FunxyGrpcHandler establishes: no generated .pb.go
// stub, a dynamic.Message in, a dynamic.Message out, fields addressed by
// name against the descriptor parsed at startup.
type CompileHandler struct {
	SD *desc.ServiceDescriptor
}

// HandleUnary decodes a CompileRequest, runs it through the compiler, and
// encodes a CompileResponse. It mirrors FunxyGrpcHandler.HandleUnary's
// decode/call/encode shape, swapping a Funxy script invocation for a direct
// pkg/compiler.Compile call.
func (h *CompileHandler) HandleUnary(ctx context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	inMsg := dynamic.NewMessage(md.GetInputType())
	if err := dec(inMsg); err != nil {
		return nil, err
	}

	source, _ := inMsg.GetFieldByName("source").(string)
	filename, _ := inMsg.GetFieldByName("filename").(string)
	optimize, _ := inMsg.GetFieldByName("optimize").(bool)
	mode, _ := inMsg.GetFieldByName("mode").(string)

	opts := compiler.Options{
		FilePath: filename,
		CompileOptions: config.CompileOptions{
			Mode:     parseMode(mode),
			Optimize: optimize,
		},
	}

	outMsg := dynamic.NewMessage(md.GetOutputType())

	result, err := compiler.Compile(source, opts)
	if err != nil {
		ce, ok := err.(*compiler.CompileError)
		if !ok {
			return nil, fmt.Errorf("compiling: %w", err)
		}
		diagJSON, encErr := cache.EncodeDiagnostics([]*diagnostics.Diagnostic{ce.Diagnostic})
		if encErr != nil {
			return nil, encErr
		}
		outMsg.SetFieldByName("valid", false)
		outMsg.SetFieldByName("diagnostics_json", diagJSON)
		return outMsg, nil
	}

	diagJSON, err := cache.EncodeDiagnostics(result.Warnings)
	if err != nil {
		return nil, err
	}

	outMsg.SetFieldByName("valid", true)
	outMsg.SetFieldByName("diagnostics_json", diagJSON)
	outMsg.SetFieldByName("inst_count", int32(len(result.SemIR.Insts)))
	outMsg.SetFieldByName("symbol_count", int32(len(result.SemIR.Symbols)))
	outMsg.SetFieldByName("compilation_id", result.Context.ID().String())

	return outMsg, nil
}

func parseMode(s string) preprocess.Mode {
	if s == "directive" {
		return preprocess.ModeDirective
	}
	return preprocess.ModeDetect
}
