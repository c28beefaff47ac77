package keymap

// Key identifiers are KeyboardEvent.key values as delivered by browsers.
var (
	pageKeys = Merge(
		Group(CodeForward, "PageUp", "9"),
		Group(CodeBack, "PageDown", "3"),
		Group(CodeRollLeft, "Home", "7"),
		Group(CodeRollRight, "End", "1"),
	)
	stepKeys = Merge(
		Group(CodeStepDown, "-"),
		Group(CodeStepUp, "+"),
	)
)

// Directional aliases arrows, WASD and keypad digits onto the movement codes.
var Directional = MustNew(Merge(
	Group(CodeLeft, "ArrowLeft", "a", "A", "4"),
	Group(CodeRight, "ArrowRight", "d", "D", "6"),
	Group(CodeUp, "ArrowUp", "w", "W", "8"),
	Group(CodeDown, "ArrowDown", "s", "S", "2"),
	pageKeys,
	stepKeys,
))

// Orbit moves with WASD and keypad digits and rotates with the arrows.
var Orbit = MustNew(Merge(
	Group(CodeLeft, "a", "A", "4"),
	Group(CodeRight, "d", "D", "6"),
	Group(CodeUp, "w", "W", "8"),
	Group(CodeDown, "s", "S", "2"),
	Group(CodeRotateLeft, "ArrowLeft"),
	Group(CodeRotateRight, "ArrowRight"),
	Group(CodeRotateUp, "ArrowUp"),
	Group(CodeRotateDown, "ArrowDown"),
	pageKeys,
	stepKeys,
))

// Empty matches nothing.
var Empty = MustNew(nil)
