// Package formats provides parsers for the puppet model file formats:
// the compiled moc3 header and the model3, motion3 and physics3 JSON
// descriptors that accompany it.
package formats
