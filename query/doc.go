// Package query answers questions from the chunks of a collection.
//
// A Pipeline retrieves the chunks most similar to the question, renders them
// into a system prompt that confines the model to that context, and sends the
// prompt with the question as a single chat turn. The model is told to answer
// "I don't know" when the context is not enough.
//
// Prompts are limited to MaxPromptChars characters. A prompt over the limit
// fails with ErrPromptTooLarge rather than being truncated.
//
// Chat failures are returned as *GenerationError carrying the question and a
// coarse error kind such as authentication or rate_limit. Nothing is retried.
package query
