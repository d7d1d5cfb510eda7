package adapterwebsocket

import "errors"

var ErrUnexpectedMessageType = errors.New("websocket: expected binary message")
