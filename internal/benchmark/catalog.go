// Package benchmark races the candidate classifier catalog and selects
// the champion by validation ROC-AUC.
package benchmark

import "churn-intel/internal/model"

// Candidate is one named catalog entry. New returns an unfitted
// classifier so every fold trains from scratch.
type Candidate struct {
	Name string
	New  func() model.Classifier
}

// Catalog returns the candidate suite in its fixed evaluation order.
// Ties on ROC-AUC are broken by this order, so it must stay stable.
func Catalog() []Candidate {
	return []Candidate{
		{"Logistic Regression", func() model.Classifier { return model.NewLogisticRegression() }},
		{"Ridge Classifier", func() model.Classifier { return model.NewRidgeClassifier() }},
		{"SGD Classifier", func() model.Classifier { return model.NewSGDClassifier() }},
		{"Perceptron", func() model.Classifier { return model.NewPerceptron() }},
		{"Passive Aggressive", func() model.Classifier { return model.NewPassiveAggressive() }},
		{"Linear SVM", func() model.Classifier { return model.NewLinearSVM() }},
		{"Gaussian Naive Bayes", func() model.Classifier { return model.NewGaussianNB() }},
		{"Bernoulli Naive Bayes", func() model.Classifier { return model.NewBernoulliNB() }},
		{"Linear Discriminant Analysis", func() model.Classifier { return model.NewLDA() }},
		{"Quadratic Discriminant Analysis", func() model.Classifier { return model.NewQDA() }},
		{"K-Nearest Neighbors", func() model.Classifier { return model.NewKNN() }},
		{"Nearest Centroid", func() model.Classifier { return model.NewNearestCentroid() }},
		{"Decision Tree", func() model.Classifier { return model.NewDecisionTree() }},
		{"Random Forest", func() model.Classifier { return model.NewRandomForest() }},
		{"Extra Trees", func() model.Classifier { return model.NewExtraTrees() }},
		{"Gradient Boosting", func() model.Classifier { return model.NewGradientBoosting() }},
		{"AdaBoost", func() model.Classifier { return model.NewAdaBoost() }},
		{"Neural Network (MLP)", func() model.Classifier { return model.NewMLP() }},
	}
}
