/*
Package schema implements versioned serialization for persisted entities.

A Class binds a Go struct type to an ordered list of per-version shapes.
A shape maps a struct field name to a small integer id and a Type; the id,
not the name, is what ends up in storage, so renaming a field never breaks
data that was written earlier.

	var playerClass = schema.MustDefine[Player]("Player",
		schema.IDField("ID"),
		schema.Version(1, schema.Shape{
			"Name": {ID: 0, Type: schema.Primitive},
		}),
		schema.Extend(2, 1, schema.Shape{
			"Level": {ID: 1, Type: schema.Primitive},
		}),
		schema.Migrate(1, 2, func(ctx context.Context, d schema.Fields) (schema.Fields, error) {
			d["Level"] = 1
			return d, nil
		}),
	)

Serialize always writes the current version. Deserialize reads the shape of
the stored version, keeps ids it doesn't know about (see Base), walks the
migration chain up to the current version and finally decodes into the
struct. Shape drift never makes Deserialize fail: problems are reported
through the class logger and integrity hook, and a best-effort instance is
returned.

Types

	Primitive          value is stored as is
	Nested(class)      value is a struct encoded by its own class
	ArrayOf(t)         slice whose elements are encoded by t
	Dynamic(resolver)  class is picked per value, e.g. TaggedUnion
*/
package schema
