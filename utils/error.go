package utils

import "errors"

// ErrorRecordNotFound is the lookup miss every model helper returns;
// handlers map it to 404.
var ErrorRecordNotFound = errors.New("record not found")
