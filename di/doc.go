// Package di provides a typed, lazily-resolving bean context.
//
// A Context stores beans by type and name: one unnamed bean and any number of
// named beans per type. Beans are either given as instances or built on first
// demand by creators, which may resolve their own dependencies from the same
// context:
//
//	c := di.New()
//	_ = di.AddCreator(c, "", func(ctx context.Context, c *di.Context) (*Repo, error) {
//		db, err := di.Compute[*sql.DB](ctx, c, "primary")
//		if err != nil {
//			return nil, err
//		}
//		return NewRepo(db), nil
//	})
//	repo, err := di.Compute[*Repo](ctx, c, "")
//
// A creator runs at most once. It is taken out of its slot before it runs, so
// a failure leaves the slot empty, and a creator that asks for its own bean,
// directly or through other creators, gets a CycleError.
//
// Get only reads: it never runs a creator. Both Get and Compute fall back to
// the parent of a child context (see Context.Child), read-only.
//
// # Capabilities
//
// Beans may advertise methods through a Descriptor. A capability is the pair
// of a parameters type, fixed per method, and an arguments type, supplied per
// call. Methods enumerates every method of one capability:
//
//	for call := range di.Methods[Announce, struct{}](c) {
//		_ = call.Call(ctx, struct{}{})
//	}
//
// ReadMethods get a Reader; WriteMethods get the *Context and may register
// and build beans. Write methods found through Context.ReadOnly fail with
// ErrReadOnly.
//
// # Lifecycle
//
// Close releases every bean in reverse order of creation. Beans implementing
// io.Closer are closed unless registered WithoutClose; WithRelease sets a
// custom release func.
//
// Code generated by cmd/beangen installs beans through Module.
package di
