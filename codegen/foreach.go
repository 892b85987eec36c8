package codegen

import (
	"bcc/ast"
	"bcc/pcode"
	"bcc/trace"
)

// foreachPoints are the targets of the break and continue statements of
// one foreach loop
type foreachPoints struct {
	breakPoint    pcode.PointID
	continuePoint pcode.PointID
}

func (l *Lowerer) lowerForeach(fn *Func, n *ast.ForeachStmt) {
	c := n.Collection
	if c == nil {
		unreachable(n.Pos, "foreach without a collection")
	}
	trace.Lower(fn.Name, "foreach", "collection=%s item=%s", c.Kind, c.Item)

	fn.pushScope()
	l.expr.PushForeachCollection(fn, c)

	var points foreachPoints
	switch c.Kind {
	case ast.CollectionArray:
		points = l.foreachArray(fn, n)
	case ast.CollectionArrayRef:
		points = l.foreachRefArray(fn, n)
	case ast.CollectionStr:
		points = l.foreachStr(fn, n)
	default:
		unreachable(n.Pos, "unknown foreach collection %d", c.Kind)
	}

	fn.setJumpsPoint(n.Break, points.breakPoint)
	fn.setJumpsPoint(n.Continue, points.continuePoint)
	fn.popScope()
}

// pushElement replaces the element offset on top of the stack with the
// element stored there
func (fn *Func) pushElement(storage ast.Storage, index int) {
	switch storage {
	case ast.StorageLocal:
		fn.Emit(pcode.OP_PUSH_SCRIPT_ARRAY, int32(index))
	case ast.StorageMap:
		fn.Emit(pcode.OP_PUSH_MAP_ARRAY, int32(index))
	case ast.StorageWorld:
		fn.Emit(pcode.OP_PUSH_WORLD_ARRAY, int32(index))
	case ast.StorageGlobal:
		fn.Emit(pcode.OP_PUSH_GLOBAL_ARRAY, int32(index))
	default:
		unreachable(zeroPos, "unknown array storage %d", storage)
	}
}

// pushSlot and friends address frame slots directly
func (fn *Func) pushSlot(slot int)   { fn.Emit(pcode.OP_PUSH_SCRIPT_VAR, int32(slot)) }
func (fn *Func) assignSlot(slot int) { fn.Emit(pcode.OP_ASSIGN_SCRIPT_VAR, int32(slot)) }
func (fn *Func) incSlot(slot int)    { fn.Emit(pcode.OP_INC_SCRIPT_VAR, int32(slot)) }
func (fn *Func) decSlot(slot int)    { fn.Emit(pcode.OP_DEC_SCRIPT_VAR, int32(slot)) }
func (fn *Func) addSlot(slot int)    { fn.Emit(pcode.OP_ADD_SCRIPT_VAR, int32(slot)) }

// loadItem reads the element at offset into the value variable. Sub-array
// and structure items are addressed through their offset and need no load.
func (fn *Func) loadItem(c *ast.Collection, offset, value int) {
	switch c.Item {
	case ast.ItemRefPair:
		fn.pushSlot(offset)
		fn.pushElement(c.Storage, c.Index)
		fn.assignSlot(value)
		fn.incSlot(offset)
		fn.pushSlot(offset)
		fn.pushElement(c.Storage, c.Index)
		fn.assignSlot(value + 1)
	case ast.ItemPrimitive:
		fn.pushSlot(offset)
		fn.pushElement(c.Storage, c.Index)
		fn.assignSlot(value)
	case ast.ItemSubArray, ast.ItemStruct:
	}
}

// foreachValue declares the value variable, which must live in the frame
func (l *Lowerer) foreachValue(fn *Func, n *ast.ForeachStmt) int {
	if n.Value == nil || n.Value.Storage != ast.StorageLocal {
		unreachable(n.Pos, "foreach value must be a local variable")
	}
	l.visitVar(fn, n.Value)
	return fn.Slot(n.Value)
}

// foreachArray iterates an array whose length is known at compile time.
// The key counts elements; the offset addresses them.
func (l *Lowerer) foreachArray(fn *Func, n *ast.ForeachStmt) foreachPoints {
	c := n.Collection

	// Key
	key := fn.AllocLocal(1)
	fn.PushNumber(0)
	fn.assignSlot(key)
	if n.Key != nil {
		fn.BindLocal(n.Key, key)
	}

	// Value; the dimension information of sub-arrays never changes
	value := l.foreachValue(fn, n)
	if c.Item == ast.ItemSubArray {
		fn.PushNumber(int32(c.DimInfo + 1))
		fn.assignSlot(value + 1)
	}

	// Offset: shared with the value for sub-arrays and structures, and
	// with the key when elements are single slots counted from zero
	offset := value
	if c.Item != ast.ItemSubArray && c.Item != ast.ItemStruct {
		offset = key
		if c.ElementSize > 1 || c.PushedBase {
			offset = fn.AllocLocal(1)
		}
	}
	if offset != key {
		if !c.PushedBase {
			fn.PushNumber(0)
		}
		fn.assignSlot(offset)
	}

	start := fn.stream.CreatePoint()
	fn.stream.AppendPoint(start)
	fn.loadItem(c, offset, value)

	// Body
	l.LowerStmt(fn, n.Body)

	// Increment
	increment := fn.stream.CreatePoint()
	fn.stream.AppendPoint(increment)
	fn.incSlot(key)
	if offset != key {
		switch {
		case c.Item == ast.ItemRefPair:
			// loadItem already stepped onto the second half
			fn.incSlot(offset)
		case c.ElementSize > 1:
			fn.PushNumber(int32(c.ElementSize))
			fn.addSlot(offset)
		default:
			fn.incSlot(offset)
		}
	}

	// Condition
	fn.pushSlot(key)
	fn.PushNumber(int32(c.Length))
	fn.Emit(pcode.OP_LT)
	fn.stream.Patch(fn.stream.EmitJump(pcode.OP_IF_GOTO), start)

	exit := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exit)
	return foreachPoints{breakPoint: exit, continuePoint: increment}
}

// foreachRefArray iterates an array reference. The collection pusher left
// the base offset and the length on the stack, plus the dimension
// information on top for sub-array items.
func (l *Lowerer) foreachRefArray(fn *Func, n *ast.ForeachStmt) foreachPoints {
	c := n.Collection

	key := -1
	if n.Key != nil {
		key = fn.AllocLocal(1)
		fn.PushNumber(0)
		fn.assignSlot(key)
		fn.BindLocal(n.Key, key)
	}

	value := l.foreachValue(fn, n)
	if c.Item == ast.ItemSubArray {
		fn.assignSlot(value + 1)
	}

	// Elements left
	left := fn.AllocLocal(1)
	fn.assignSlot(left)

	offset := value
	if c.Item != ast.ItemSubArray && c.Item != ast.ItemStruct {
		offset = fn.AllocLocal(1)
	}
	fn.assignSlot(offset)

	start := fn.stream.CreatePoint()
	fn.stream.AppendPoint(start)
	fn.loadItem(c, offset, value)

	// Body
	l.LowerStmt(fn, n.Body)

	// Increment
	increment := fn.stream.CreatePoint()
	fn.stream.AppendPoint(increment)
	if key >= 0 {
		fn.incSlot(key)
	}
	switch c.Item {
	case ast.ItemSubArray:
		// The first entry of the dimension information is the sub-array size
		fn.pushSlot(value + 1)
		fn.Emit(pcode.OP_PUSH_MAP_ARRAY, int32(l.opts.SharedArrayIndex))
		fn.addSlot(offset)
	case ast.ItemRefPair:
		fn.incSlot(offset)
	case ast.ItemStruct:
		if c.StructSize > 1 {
			fn.PushNumber(int32(c.StructSize))
			fn.addSlot(offset)
		} else {
			fn.incSlot(offset)
		}
	case ast.ItemPrimitive:
		fn.incSlot(offset)
	}

	// Condition. The body runs before the first test, so a reference of
	// length 0 drives left negative and the loop does not stop.
	fn.decSlot(left)
	fn.pushSlot(left)
	fn.stream.Patch(fn.stream.EmitJump(pcode.OP_IF_GOTO), start)

	exit := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exit)
	return foreachPoints{breakPoint: exit, continuePoint: increment}
}

// foreachStr walks a string one character at a time until the terminating
// zero character
func (l *Lowerer) foreachStr(fn *Func, n *ast.ForeachStmt) foreachPoints {
	str := fn.AllocLocal(1)
	fn.assignSlot(str)

	key := fn.AllocLocal(1)
	fn.PushNumber(0)
	fn.assignSlot(key)
	if n.Key != nil {
		fn.BindLocal(n.Key, key)
	}

	value := l.foreachValue(fn, n)
	condJump := fn.stream.EmitJump(pcode.OP_GOTO)

	// Body
	start := fn.stream.CreatePoint()
	fn.stream.AppendPoint(start)
	l.LowerStmt(fn, n.Body)

	// Increment; continue lands here so the key always advances
	increment := fn.stream.CreatePoint()
	fn.stream.AppendPoint(increment)
	fn.incSlot(key)

	// Condition
	cond := fn.stream.CreatePoint()
	fn.stream.AppendPoint(cond)
	fn.stream.Patch(condJump, cond)
	fn.pushSlot(str)
	fn.pushSlot(key)
	fn.Emit(pcode.OP_CALL_FUNC, 2, pcode.EXT_GETCHAR)
	fn.Emit(pcode.OP_DUP)
	fn.assignSlot(value)
	fn.stream.Patch(fn.stream.EmitJump(pcode.OP_IF_GOTO), start)

	exit := fn.stream.CreatePoint()
	fn.stream.AppendPoint(exit)
	return foreachPoints{breakPoint: exit, continuePoint: increment}
}
