package tyco

// renderReferences resolves every Reference node in the tree to its target
// Instance, per spec §4.4 step 4. Must run after StructSchema.LoadPrimaryKeys.
func (ctx *Context) renderReferences() error {
	for _, key := range ctx.globals.keysInOrder() {
		g, _ := ctx.globals.get(key)
		if err := renderReferencesNode(ctx, g); err != nil {
			return err
		}
	}
	for _, typeName := range ctx.structs.keysInOrder() {
		schema, _ := ctx.structs.get(typeName)
		for _, inst := range schema.instances {
			if err := renderReferencesNode(ctx, inst); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderReferencesNode(ctx *Context, n Node) error {
	switch v := n.(type) {
	case *Array:
		for _, el := range v.Elements {
			if err := renderReferencesNode(ctx, el); err != nil {
				return err
			}
		}
	case *Instance:
		for _, name := range v.names {
			field, _ := v.get(name)
			if err := renderReferencesNode(ctx, field); err != nil {
				return err
			}
		}
	case *Reference:
		if isRendered(v) {
			return errAt(DoubleRender, v.Fragment, "reference to %q rendered more than once", v.TypeName)
		}
		schema, ok := ctx.structFor(v.TypeName)
		if !ok {
			return errAt(UnknownReference, v.Fragment, "reference to undeclared struct %q", v.TypeName)
		}
		inst, err := schema.LoadReference(v)
		if err != nil {
			return err
		}
		setRendered(v, inst)
	}
	return nil
}
