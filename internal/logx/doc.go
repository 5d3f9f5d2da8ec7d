// Package logx is the board's structured logging layer on top of zerolog.
//
// Console output is human readable (short timestamp, file:line caller). The
// optional file sink writes one JSON object per line. Service.Apply swaps
// level and sinks at runtime, so loggers handed out earlier follow config
// reloads.
package logx
