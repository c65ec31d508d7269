/*
Package hwplat describes the I/O resources of FPGA boards and resolves
abstract requests ("the serial port", "the SDRAM bus") to physical package
pins and electrical attributes.

A board is described by one or more Variants (revisions, device options), each
holding a ResourceTable and a ConnectorTable. Pin lists are written as text:

	"AK14 AH14 AG15"   package pins
	"GPIO:1"           slot 1 of connector GPIO
	"-"                not connected

A Selector picks the active Variant for a build, and a Platform resolves
requests against it:

	sel, _ := hwplat.NewSelector(variants...)
	p, err := hwplat.New(sel, "r0.2")
	rx, err := p.RequestSubsignal("serial", 0, "rx")

Resolved Handles carry only physical pins, with resource attributes merged
into subsignal attributes. Handles bound as driving outputs with Platform.Drive
may not share pins; such bindings fail with a *ConflictError.

Clock and reset generation for the resolved clock inputs lives in package crg.

*/
package hwplat
