// Package knowledge holds the support knowledge base: documents are split into
// overlapping chunks, embedded, and searched by cosine similarity.
//
// The Store implements ports.Retriever.
package knowledge
