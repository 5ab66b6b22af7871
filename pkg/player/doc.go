/*
Package player runs explorations for learners.

The Engine is stateless between calls: a learner's position travels with
each request as a state name, a block number and the current params. An
answer is normalized by the state's widget, classified against the submit
handler's rules (the first rule whose expr condition holds wins) and the
learner is moved to the rule's destination.

The Client speaks the reader HTTP routes:

	GET  /learn/{id}/data       initial page
	POST /learn/{id}/{stateId}  form field "payload" holding a JSON submission
*/
package player
