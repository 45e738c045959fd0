/*
go-detfusion fuses the output of several object detectors, run over the same
image in several ways, into a single deduplicated list of detections.

An Engine enumerates detection passes from its Config, one for each detector
variant, confidence threshold and technique (the full image, each cell of a
grid of tiles, a contrast enhanced copy) plus an optional colour segmentation
pass.  Passes are run concurrently through an Adapter, which is the boundary
to the actual detector, and their proposals are mapped back into image
coordinates, filtered by class and suppressed greedily by confidence using
either intersection-over-union or the overlap ratio of the smaller box.

A failed pass never fails the image, it is recorded and the remaining passes
contribute as normal.

See the cmd/detfusion directory for a command line tool that runs the Engine
against an HTTP detection service.
*/
package detfusion
