// Package retrieval finds the chunks of a collection most similar to a query.
//
// Retriever ranks chunks by cosine similarity, most similar first, with ties
// broken by chunk id. It never deduplicates: overlapping chunks from
// different sources can all appear in one result set.
//
// VectorStore adapts a collection to langchaingo's vectorstores.VectorStore
// so the rest of the langchaingo ecosystem can read from and write to it:
//
//	store, err := retrieval.NewVectorStore(collection)
//	if err != nil {
//	    return err
//	}
//	docs, err := vectorstores.ToRetriever(store, 4,
//	    vectorstores.WithScoreThreshold(0.3)).GetRelevantDocuments(ctx, query)
package retrieval
