// Package logframe recovers LogFrame blocks from E-Prime text exports.
//
// An export is a UTF-16 (or UTF-8) text file in which every meaningful line
// is tab-indented. Trials are written as blocks:
//
//	\t*** LogFrame Start ***
//	\tStimulus: Target4.png
//	\tStimDisplay.RT: 500
//	\t*** LogFrame End ***
//
// The parser is a line-at-a-time state machine that tolerates noise: lines
// without indentation, lines outside any block and key/value lines without a
// separator are dropped and reported through a Coalescer, which merges
// contiguous dropped lines of one category into a single message. Nested
// starts and stray ends are structural anomalies and are reported one by one.
// Neither kind of diagnostic ever changes the recovered frames.
//
// Basic usage:
//
//	p := logframe.NewParser(log, logframe.ParseOptions{Source: "s01.txt"})
//	res, err := logframe.ParseFile("s01.txt", logframe.EncodingAuto, p)
//	if err != nil {
//	    return err
//	}
//	for _, f := range res.Frames {
//	    fmt.Printf("%#v\n", f)
//	}
package logframe
