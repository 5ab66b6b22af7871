package middleware

import "github.com/aretw0/lessonkit/pkg/ports"

// Middleware allows wrapping an AnswerLog to add behavior.
type Middleware func(ports.AnswerLog) ports.AnswerLog

// Chain applies middlewares so that the first one sees answers first.
func Chain(log ports.AnswerLog, mws ...Middleware) ports.AnswerLog {
	for i := len(mws) - 1; i >= 0; i-- {
		log = mws[i](log)
	}
	return log
}
