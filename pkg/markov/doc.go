/*
Package markov builds Markov chains from corpora of runs and walks them to
generate new runs.

A run is any sequence of Values: words of a sentence, numbers, or nested
JSON-like lists and objects. Build pads every run with Begin and End
sentinels and counts which Value followed each fixed-width State. Move draws
one weighted transition, Generate and Walk repeat it until End is reached.

A chain serializes to a single JSON document of the shape

	[[stateKey, [[followKey, {"value": v, "count": n}], ...]], ...]

and FromJSON hydrates it back, recovering the state size from the keys.

Walks are not bounded. A model in which a cycle can be reached without ever
reaching End may walk forever; use WithMaxLength to cap it.
*/
package markov
