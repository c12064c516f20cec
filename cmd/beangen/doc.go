// Command beangen generates a di.Module from a YAML bean spec.
//
// The generated module only calls the public registration API of package di:
// AddCreator, AddInstance and descriptor registration. Dependencies of a
// creator are resolved with di.Compute inside its factory, so construction
// stays lazy and cycles are reported by the context at runtime.
//
// Usage
//
//	beangen --spec beans.yaml --out beans.gen.go
//
// or from a package:
//
//	//go:generate go run github.com/sghaida/beanctx/cmd/beangen --spec beans.yaml --out beans.gen.go
//
// Spec format
//
//	package: payments          # package of the generated file
//	module: Beans              # generated func Beans() di.Module (default "Module")
//	imports:
//	  di: ""                   # runtime import; inferred when empty
//	  extra:
//	    - path: database/sql
//	beans:
//	  - type: "*Ledger"
//	    constructor: NewLedger
//	    returnsError: true     # NewLedger returns (*Ledger, error)
//	    deps:
//	      - type: "*sql.DB"
//	      - type: Tracer
//	        optional: true     # zero value when nothing is registered
//	    methods:
//	      - params: Announce   # capability (Announce, struct{})
//	        value: 'Announce{Topic: "ledger"}'
//	        func: announceLedger
//	    runnables:
//	      - func: runLedger
//	  - type: Limits
//	    name: strict
//	    instance: 'Limits{Max: 10}'
//	    noClose: true
//
// A bean is either an instance (an expression registered with AddInstance) or
// a creator (a constructor called with its deps in declared order). Method
// funcs must match di.ReadMethod, or di.WriteMethod when mutable is set;
// runnable funcs take (ctx, bean, *di.Context).
//
// Imports
//
// The di import is taken from imports.di, then from the hand-written files of
// the output package (alias "di" or a path ending in "/di"), then from the
// go.mod of the module containing beangen. context, errors, time, io and
// net/http are added when the generated code or a type expression needs them.
//
// Output
//
// The output starts with the standard "Code generated ... DO NOT EDIT." line and
// records the spec file name and its SHA-256. Beans are sorted by type then
// name; methods keep their declared order. The file is formatted with
// go/format; when formatting fails the raw source is written for inspection
// and beangen exits with an error.
package main
