// Package sink provides the host side of a render: session.ProgressSink
// implementations that print progress, store framebuffer updates and fan
// out to several sinks at once.
//
// Framebuffer images are written through a Store. Two stores are provided:
//
//   - DiskStore: writes files into a local directory
//   - S3Store: uploads objects to an S3 bucket (aws-sdk-go-v2)
//
// Typical wiring:
//
//	disk, _ := sink.NewDiskStore("renders")
//	images := sink.NewImages("shot010", 12, disk)
//	s := sink.Multi(sink.NewConsole(os.Stderr), images)
//	result, err := sess.Render(ctx, s)
package sink
