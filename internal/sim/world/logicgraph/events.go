package logicgraph

// InputEvent asks the driver to re-evaluate the block owning an input port,
// because its group's aggregate signal may have changed.
type InputEvent struct {
	Port Port
}

// OutputEvent asks the driver to compute the block's output value and push it
// back via UpdateProducer.
type OutputEvent struct {
	Port Port
}
