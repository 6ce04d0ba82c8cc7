package rpc

// serviceProto is CompileService's wire contract, parsed at startup into a
// desc.FileDescriptor instead of being compiled into a generated .pb.go,
// the same no-codegen approach the teacher uses for dynamic Funxy gRPC
// services (internal/evaluator/builtins_grpc.go): requests/responses are
// dynamic.Message values built straight off this descriptor.
const serviceProto = `
syntax = "proto3";

package tinywhale;

message CompileRequest {
  string source = 1;
  string filename = 2;
  bool optimize = 3;
  string mode = 4; // "detect" or "directive"; empty means detect
}

message CompileResponse {
  bool valid = 1;
  string diagnostics_json = 2;
  int32 inst_count = 3;
  int32 symbol_count = 4;
  string compilation_id = 5;
}

service CompileService {
  rpc Compile(CompileRequest) returns (CompileResponse);
}
`

const serviceProtoFilename = "tinywhale.proto"
