package rpc

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// loadServiceDescriptor parses the embedded CompileService contract into a
// desc.ServiceDescriptor, the same protoparse.Parser entry point the
// teacher uses for grpcLoadProto — but fed an in-memory Accessor instead of
// a path on disk, since CompileService's contract ships with the binary
// rather than being loaded from a user-supplied .proto file.
func loadServiceDescriptor() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: func(filename string) (io.ReadCloser, error) {
			if filename != serviceProtoFilename {
				return nil, fmt.Errorf("unknown proto file %q", filename)
			}
			return io.NopCloser(strings.NewReader(serviceProto)), nil
		},
	}

	fds, err := parser.ParseFiles(serviceProtoFilename)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", serviceProtoFilename, err)
	}
	if len(fds) != 1 {
		return nil, fmt.Errorf("expected exactly one file descriptor, got %d", len(fds))
	}

	sd := fds[0].FindService("tinywhale.CompileService")
	if sd == nil {
		return nil, fmt.Errorf("service tinywhale.CompileService not found in parsed descriptor")
	}
	return sd, nil
}
